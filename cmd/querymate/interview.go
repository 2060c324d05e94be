package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"querymate-be/pkg/client"
)

var (
	updateExisting bool

	documentStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
)

var interviewCmd = &cobra.Command{
	Use:   "interview",
	Short: "Answer questions about your business to build the chatbot context",
	Long: `Runs the context-building interview. Type your answers; the assistant asks
follow-up questions until it has enough, then shows the document for review.

Commands inside the interview:
  /reset   start over
  /quit    leave (progress is kept on the server)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, api, err := session()
		if err != nil {
			return err
		}
		return runInterview(cmd.Context(), api, bufio.NewReader(os.Stdin), os.Stdout)
	},
}

func init() {
	interviewCmd.Flags().BoolVar(&updateExisting, "update", false, "reopen an existing context document for changes")
}

func runInterview(ctx context.Context, api *client.Client, in *bufio.Reader, out io.Writer) error {
	sess, err := api.GetSession(ctx)
	if err != nil {
		return err
	}

	if sess.HasExistingContext && !updateExisting && sess.Stage == "collecting" {
		fmt.Fprintln(out, "You already have a saved context document.")
		fmt.Fprintln(out, dimText("View it with `querymate context get` or change it with `querymate interview --update`."))
		return nil
	}
	if updateExisting {
		if sess, err = api.UpdateSession(ctx); err != nil {
			return err
		}
	}

	if sess.Stage == "complete" {
		return review(ctx, api, in, out, sess.FormattedContext)
	}

	for _, m := range sess.Messages {
		printTurn(out, m.Role, m.Content)
	}

	for {
		fmt.Fprint(out, "> ")
		line, readErr := in.ReadString('\n')
		answer := strings.TrimSpace(line)

		switch {
		case answer == "" && readErr != nil:
			return nil
		case answer == "":
			continue
		case answer == "/quit":
			fmt.Fprintln(out, dimText("Progress saved. Run `querymate interview` to continue."))
			return nil
		case answer == "/reset":
			if err := api.ResetSession(ctx); err != nil {
				return err
			}
			fresh, err := api.GetSession(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, dimText("Started over."))
			if fresh.InitialMessage != "" {
				printTurn(out, "assistant", fresh.InitialMessage)
			}
			continue
		}

		reply, err := api.PostMessage(ctx, answer)
		if err != nil {
			// keep the conversation going; the user can resend
			fmt.Fprintln(out, errorText(client.Describe(err)))
			if errors.Is(err, client.ErrNotLoggedIn) {
				return err
			}
			continue
		}
		printTurn(out, "assistant", reply.Reply)

		if reply.Done {
			return review(ctx, api, in, out, reply.FormattedContext)
		}
	}
}

func printTurn(out io.Writer, role, content string) {
	if role == "assistant" {
		fmt.Fprintf(out, "%s %s\n", botText("QueryMate:"), content)
		return
	}
	fmt.Fprintf(out, "%s %s\n", dimText("You:"), content)
}

// review shows the generated document and commits it, optionally after an
// edit in $EDITOR.
func review(ctx context.Context, api *client.Client, in *bufio.Reader, out io.Writer, document string) error {
	for {
		fmt.Fprintln(out, documentStyle.Render(document))
		choice := strings.ToLower(prompt(in, "Save this document? [Y]es / [e]dit / [n]o: "))

		switch choice {
		case "", "y", "yes":
			if err := api.CompleteSession(ctx, document); err != nil {
				return err
			}
			fmt.Fprintln(out, okText("Context saved. Your widget answers from it now."))
			return nil
		case "e", "edit":
			edited, err := editInEditor(document)
			if err != nil {
				fmt.Fprintln(out, errorText(err.Error()))
				continue
			}
			document = edited
		case "n", "no":
			fmt.Fprintln(out, dimText("Not saved. Run `querymate interview` to review again."))
			return nil
		}
	}
}

func editInEditor(document string) (string, error) {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}

	f, err := os.CreateTemp("", "querymate-*.txt")
	if err != nil {
		return "", err
	}
	defer os.Remove(f.Name())

	if _, err := f.WriteString(document); err != nil {
		f.Close()
		return "", err
	}
	f.Close()

	cmd := exec.Command(editor, f.Name())
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("editor failed: %w", err)
	}

	raw, err := os.ReadFile(f.Name())
	if err != nil {
		return "", err
	}
	edited := strings.TrimSpace(string(raw))
	if edited == "" {
		return "", errors.New("document is empty")
	}
	return edited, nil
}

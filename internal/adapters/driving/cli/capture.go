package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/tasklift/internal/core/domain"
	"github.com/custodia-labs/tasklift/internal/i18n"
)

var captureCmd = &cobra.Command{
	Use:   "capture [text...]",
	Short: "Analyze text and screenshots and send the resulting tasks",
	Long: `Analyze pasted text and/or screenshots with Gemini, review the extracted
tasks, then create them in every signed-in destination.

Text comes from the arguments, --text, or standard input when it is piped.
Saved emails (.eml), web pages (.html) and text files can be attached with
--file; their text is analyzed along with the rest.

Examples:
  tasklift capture "Dentist next Tuesday at 3pm"
  tasklift capture --image chat1.png --image chat2.png
  tasklift capture --file invitation.eml
  pbpaste | tasklift capture --dry-run`,
	RunE: runCapture,
}

// Flags for capture.
var (
	captureText   string
	captureImages []string
	captureFiles  []string
	captureDryRun bool
	captureYes    bool
)

// stdinIsTerminal reports whether prompts can be answered interactively.
var stdinIsTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// maxImageBytes bounds a single attached image.
const maxImageBytes = 20 << 20

func init() {
	captureCmd.Flags().StringVarP(&captureText, "text", "t", "", "Text to analyze")
	captureCmd.Flags().StringArrayVarP(&captureImages, "image", "i", nil, "Image file to analyze (repeatable)")
	captureCmd.Flags().StringArrayVarP(&captureFiles, "file", "f", nil, "Email, HTML or text file to analyze (repeatable)")
	captureCmd.Flags().BoolVar(&captureDryRun, "dry-run", false, "Analyze and print tasks without sending")
	captureCmd.Flags().BoolVarP(&captureYes, "yes", "y", false, "Send without reviewing")
	rootCmd.AddCommand(captureCmd)
}

// errAnalysisFailed marks a generation failure the user can only retry.
var errAnalysisFailed = errors.New("analysis failed")

// analysisError tags err as an analysis failure unless it already has a
// more specific message.
func analysisError(err error) error {
	var validation *domain.ValidationError
	var quota *domain.QuotaExceededError
	switch {
	case errors.As(err, &validation), errors.As(err, &quota),
		errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return fmt.Errorf("%w: %w", errAnalysisFailed, err)
}

//nolint:gocognit // CLI interactive flow
func runCapture(cmd *cobra.Command, args []string) error {
	if taskBoard == nil || sender == nil {
		return errors.New("task services not configured")
	}
	// Left unset when no generation key is configured.
	if analyzer == nil {
		return domain.ErrNoAPIKeys
	}

	ctx := cmd.Context()
	interactive := stdinIsTerminal()

	input, err := readCaptureInput(cmd, args, interactive)
	if err != nil {
		return err
	}
	if input.IsEmpty() {
		return domain.NewValidationError(domain.ReasonNoInput)
	}

	cmd.Println(i18n.T("Analyzing..."))
	analysis, err := analyzer.Analyze(ctx, input)
	if err != nil {
		return analysisError(err)
	}
	added := taskBoard.Add(analysis)
	cmd.Println(i18n.N("Found %d task.", "Found %d tasks.", len(added), len(added)))

	if captureDryRun {
		printTasks(cmd, taskBoard.All())
		return nil
	}

	restoreSessions(ctx)
	reader := bufio.NewReader(cmd.InOrStdin())

	if interactive && !captureYes {
		send, err := reviewTasks(cmd, reader)
		if err != nil || !send {
			return err
		}
	} else {
		printTasks(cmd, taskBoard.All())
	}

	for {
		summary, err := sender.SendAll(ctx)
		if err != nil {
			return err
		}
		printSummary(cmd, summary)
		if summary.Delivered {
			cmd.Println(i18n.T("All tasks were sent."))
			return nil
		}
		if !interactive || !confirm(cmd, reader, i18n.T("Some items failed. Send the list again? [y/N] ")) {
			return errors.New(i18n.T("some tasks were not delivered"))
		}
	}
}

func readCaptureInput(cmd *cobra.Command, args []string, interactive bool) (domain.CaptureInput, error) {
	text := captureText
	if text == "" && len(args) > 0 {
		text = strings.Join(args, " ")
	}
	if text == "" && !interactive && len(captureFiles) == 0 && len(captureImages) == 0 {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return domain.CaptureInput{}, fmt.Errorf("reading stdin: %w", err)
		}
		text = string(data)
	}

	parts := []string{strings.TrimSpace(text)}
	for _, path := range captureFiles {
		docText, err := readDocument(cmd, path)
		if err != nil {
			return domain.CaptureInput{}, err
		}
		parts = append(parts, docText)
	}

	input := domain.CaptureInput{Text: joinNonEmpty(parts, "\n\n")}
	for _, path := range captureImages {
		img, err := readImage(path)
		if err != nil {
			return domain.CaptureInput{}, err
		}
		input.Images = append(input.Images, img)
	}
	return input, nil
}

func readDocument(cmd *cobra.Command, path string) (string, error) {
	if documents == nil {
		return "", errors.New("document reader not configured")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return documents.Text(cmd.Context(), domain.Document{Name: filepath.Base(path), Content: data})
}

func joinNonEmpty(parts []string, sep string) string {
	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

func readImage(path string) (domain.Image, error) {
	info, err := os.Stat(path)
	if err != nil {
		return domain.Image{}, err
	}
	if info.Size() > maxImageBytes {
		return domain.Image{}, errors.New(i18n.T("%s is too large to attach.", path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Image{}, err
	}
	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		return domain.Image{}, errors.New(i18n.T("%s is not an image.", path))
	}
	return domain.Image{Data: data, MIMEType: mimeType}, nil
}

// reviewTasks lets the user drop or retitle tasks before sending. It
// returns false when the user quits.
func reviewTasks(cmd *cobra.Command, reader *bufio.Reader) (bool, error) {
	for {
		tasks := taskBoard.All()
		if len(tasks) == 0 {
			cmd.Println(i18n.T("There are no tasks to send."))
			return false, nil
		}
		printTasks(cmd, tasks)

		cmd.Print(i18n.T("[s]end, [d]rop N, [t]itle N <new title>, [q]uit: "))
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			if errors.Is(err, io.EOF) {
				return false, nil
			}
			return false, err
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch strings.ToLower(fields[0]) {
		case "s", "send":
			return true, nil
		case "q", "quit":
			return false, nil
		case "d", "drop":
			task, ok := pickTask(tasks, fields)
			if !ok {
				cmd.Println(i18n.T("Enter a task number."))
				continue
			}
			taskBoard.Remove(task.ID)
		case "t", "title":
			task, ok := pickTask(tasks, fields)
			if !ok || len(fields) < 3 {
				cmd.Println(i18n.T("Enter a task number and the new title."))
				continue
			}
			record := task.Record
			record.Title = strings.Join(fields[2:], " ")
			if err := taskBoard.Replace(task.ID, record); err != nil {
				return false, err
			}
		default:
			cmd.Println(i18n.T("Unknown command %q.", fields[0]))
		}
	}
}

func pickTask(tasks []domain.AnalyzedTask, fields []string) (domain.AnalyzedTask, bool) {
	if len(fields) < 2 {
		return domain.AnalyzedTask{}, false
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil || n < 1 || n > len(tasks) {
		return domain.AnalyzedTask{}, false
	}
	return tasks[n-1], true
}

func confirm(cmd *cobra.Command, reader *bufio.Reader, prompt string) bool {
	cmd.Print(prompt)
	line, _ := reader.ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func printTasks(cmd *cobra.Command, tasks []domain.AnalyzedTask) {
	for i, task := range tasks {
		r := task.Record
		cmd.Printf("%d. %s\n", i+1, r.Title)

		details := []string{i18n.T("importance %s", string(r.Importance))}
		if r.DueDateTime != "" {
			details = append(details, i18n.T("due %s", r.DueDateTime))
		}
		if r.ReminderDateTime != "" {
			details = append(details, i18n.T("reminder %s", r.ReminderDateTime))
		}
		if len(r.Categories) > 0 {
			details = append(details, strings.Join(r.Categories, ", "))
		}
		cmd.Printf("   %s\n", strings.Join(details, " | "))

		if x := task.Extracted; x.Sender != "" || x.Location != "" {
			var extra []string
			if x.Sender != "" {
				extra = append(extra, i18n.T("from %s", x.Sender))
			}
			if x.Location != "" {
				extra = append(extra, i18n.T("at %s", x.Location))
			}
			cmd.Printf("   %s\n", strings.Join(extra, " | "))
		}
	}
}

func printSummary(cmd *cobra.Command, summary *domain.SendSummary) {
	for _, res := range summary.Results {
		cmd.Println(i18n.T("%s: %d/%d sent", res.Destination.DisplayName(), res.Succeeded(), res.Attempted()))
		for _, o := range res.Outcomes {
			if !o.Success {
				cmd.Println(i18n.T("  item %d failed: %s", o.Index+1, ErrorMessage(o.Err)))
			}
		}
	}
}

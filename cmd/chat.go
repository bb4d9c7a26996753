package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/abhisek/tutorly/internal/session"
	"github.com/abhisek/tutorly/internal/speech"
	"github.com/abhisek/tutorly/internal/tutor"
)

const defaultRecordCommand = "arecord -q -f S16_LE -r 16000 -c 1 -t raw"

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive tutoring chat",
	Long: `Start an interactive tutoring chat in the terminal.

Type a question and press enter. Commands:
  /topics            show suggested topics
  /topic <title>     switch to a topic and ask about it
  /subject <id>      start over with another subject
  /record [file]     record speech (from a raw PCM file or the microphone)
  /stop              stop recording and send the transcript
  /clear             clear the subject
  /quit              leave`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd)
	},
}

func addChatFlags(c *cobra.Command) {
	c.Flags().StringP("subject", "s", "SCIENCE", "Subject to study")
	c.Flags().IntP("grade", "g", 6, "Student grade level (1-12)")
	c.Flags().String("name", "", "Student name")
	c.Flags().String("student-id", "local", "Student identifier")
}

func init() {
	addChatFlags(chatCmd)
}

func runChat(cmd *cobra.Command) error {
	if !verbose {
		logLevel.SetLevel(zapcore.WarnLevel)
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	student, subject, err := studentFromFlags(cmd)
	if err != nil {
		return err
	}

	rt, err := newRuntime(ctx, cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	out := cmd.OutOrStdout()
	view, err := rt.tutor.StartSession(ctx, tutor.SessionOptions{
		SubjectID:   subject,
		SessionType: "chat",
		Student:     student,
	})
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	fmt.Fprintf(out, "Tutorly (%s, %s, grade %d). Type /quit to leave.\n",
		rt.llmConfig.Provider, view.SubjectID, student.GradeLevel)
	printTopics(out, view.SuggestedTopics)

	views, unsubscribe := rt.tutor.Subscribe()
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		p := newViewPrinter(out)
		for v := range views {
			p.print(v)
		}
	}()
	defer func() {
		unsubscribe()
		<-printed
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(cmd.InOrStdin())
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := handleChatLine(ctx, rt, out, student, line)
			if err != nil {
				fmt.Fprintln(out, "!", err)
			}
			if quit {
				return nil
			}
		}
	}
}

func handleChatLine(ctx context.Context, rt *runtime, out io.Writer, student session.Student, line string) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}
	if !strings.HasPrefix(line, "/") {
		return false, ignoreShown(rt.tutor.SubmitInput(line))
	}

	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case "/quit", "/exit":
		return true, nil
	case "/topics":
		printTopics(out, rt.tutor.View().SuggestedTopics)
	case "/topic":
		if arg == "" {
			return false, errors.New("usage: /topic <title>")
		}
		return false, ignoreShown(rt.tutor.SelectTopic(arg))
	case "/subject":
		if arg == "" {
			return false, errors.New("usage: /subject <id>")
		}
		v, err := rt.tutor.StartSession(ctx, tutor.SessionOptions{SubjectID: arg, SessionType: "chat", Student: student})
		if err != nil {
			return false, err
		}
		fmt.Fprintf(out, "Now studying %s.\n", v.SubjectID)
		printTopics(out, v.SuggestedTopics)
	case "/clear":
		return false, rt.tutor.ClearSubject()
	case "/record":
		src, err := audioSource(arg)
		if err != nil {
			return false, err
		}
		if err := rt.tutor.StartRecording(src); err != nil {
			return false, ignoreShown(err)
		}
		fmt.Fprintln(out, "Recording. Type /stop when done.")
	case "/stop":
		return false, rt.tutor.StopRecording()
	default:
		return false, fmt.Errorf("unknown command %s", name)
	}
	return false, nil
}

// ignoreShown drops errors the view printer already reports.
func ignoreShown(err error) error {
	if errors.Is(err, tutor.ErrNoSubjectSelected) ||
		errors.Is(err, tutor.ErrNoActiveSession) ||
		errors.Is(err, tutor.ErrQueueFull) ||
		errors.Is(err, tutor.ErrSpeechUnavailable) {
		return nil
	}
	return err
}

func audioSource(path string) (speech.AudioSource, error) {
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open audio: %w", err)
		}
		return speech.ReaderSource{R: f}, nil
	}
	command := os.Getenv("TUTORLY_RECORD_COMMAND")
	if command == "" {
		command = defaultRecordCommand
	}
	fields := strings.Fields(command)
	return speech.CommandSource{Name: fields[0], Args: fields[1:]}, nil
}

func studentFromFlags(cmd *cobra.Command) (session.Student, string, error) {
	subject, _ := cmd.Flags().GetString("subject")
	grade, _ := cmd.Flags().GetInt("grade")
	name, _ := cmd.Flags().GetString("name")
	id, _ := cmd.Flags().GetString("student-id")
	if grade < 1 || grade > 12 {
		return session.Student{}, "", fmt.Errorf("grade must be between 1 and 12, got %d", grade)
	}
	return session.Student{ID: id, Name: name, GradeLevel: grade}, strings.ToUpper(subject), nil
}

func printTopics(out io.Writer, topics []string) {
	if len(topics) == 0 {
		return
	}
	fmt.Fprintln(out, "Suggested topics:")
	for _, t := range topics {
		fmt.Fprintf(out, "  - %s\n", t)
	}
}

// viewPrinter prints what changed between successive session views.
type viewPrinter struct {
	out     io.Writer
	shown   map[string]int
	err     string
	warning string
	status  string
	session string
}

func newViewPrinter(out io.Writer) *viewPrinter {
	return &viewPrinter{out: out, shown: make(map[string]int)}
}

func (p *viewPrinter) print(v tutor.SessionView) {
	if v.SessionID != p.session {
		p.session = v.SessionID
		clear(p.shown)
		for _, m := range v.Messages {
			p.shown[m.ID] = len(m.Content)
		}
	}

	for _, m := range v.Messages {
		if m.IsUser {
			continue
		}
		n, seen := p.shown[m.ID]
		switch {
		case !seen:
			fmt.Fprintf(p.out, "\ntutor> %s\n\n", m.Content)
		case len(m.Content) > n:
			fmt.Fprintf(p.out, "%s\n\n", strings.TrimLeft(m.Content[n:], "\n"))
		}
		p.shown[m.ID] = len(m.Content)
	}

	if v.Status != p.status && v.Status != "" {
		fmt.Fprintf(p.out, "(%s)\n", v.Status)
	}
	if v.Error != p.err && v.Error != "" {
		fmt.Fprintln(p.out, "!", v.Error)
	}
	if v.Warning != p.warning && v.Warning != "" {
		fmt.Fprintln(p.out, "!", v.Warning)
	}
	p.status, p.err, p.warning = v.Status, v.Error, v.Warning
}

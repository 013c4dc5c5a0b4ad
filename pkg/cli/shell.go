package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/Nephrolytics-ai/pd-report/pkg/model"
	"github.com/Nephrolytics-ai/pd-report/pkg/session"
)

const shellPrompt = "pdreport> "

// runShell drives one session interactively. Failed actions are alerted by
// the controller and the shell keeps going.
func (a *app) runShell(ctx context.Context, args []string) error {
	fs, common := a.newFlagSet("shell")
	occurrenceType := fs.String("occurrence-type", "", "Initial occurrence type")
	reportType := fs.String("report-type", "", "Initial report type")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := validateTypes(*occurrenceType, *reportType); err != nil {
		return err
	}

	cfg, err := a.loadConfig(common)
	if err != nil {
		return err
	}
	controller, err := a.newController(cfg, true)
	if err != nil {
		return err
	}
	controller.SetOccurrenceType(*occurrenceType)
	controller.SetReportType(*reportType)

	sh := &shell{app: a, controller: controller, outputDir: cfg.OutputDir, saveJSON: cfg.SaveReportJSON, term: newTerminalNotifier(a.stdout)}
	return sh.run(ctx)
}

type shell struct {
	app        *app
	controller *session.Controller
	outputDir  string
	saveJSON   bool
	term       *terminalNotifier
}

func (s *shell) run(ctx context.Context) error {
	out := s.app.stdout
	fmt.Fprintln(out, s.term.render(titleStyle, "pdreport shell")+" "+s.term.render(helpStyle, "(type help for commands)"))

	scanner := bufio.NewScanner(s.app.stdin)
	for {
		fmt.Fprint(out, shellPrompt)
		if !scanner.Scan() {
			break
		}

		command, rest := splitCommand(scanner.Text())
		if command == "" {
			continue
		}
		if command == "quit" || command == "exit" {
			break
		}
		s.dispatch(ctx, command, rest)
	}
	fmt.Fprintln(out)

	if s.controller.Recording() {
		if _, err := s.controller.StopRecording(ctx); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func (s *shell) dispatch(ctx context.Context, command string, rest string) {
	out := s.app.stdout
	switch command {
	case "record":
		text, err := s.controller.ToggleRecording(ctx)
		if err != nil {
			return
		}
		if s.controller.Recording() {
			s.status("recording... type record again to stop")
			return
		}
		s.ok("transcribed: " + text)
	case "upload":
		if rest == "" {
			s.status("usage: upload <audio-file>")
			return
		}
		if text, err := s.controller.UploadAudio(ctx, rest); err == nil {
			s.ok("transcribed: " + text)
		}
	case "note":
		current := s.controller.Transcription()
		if current != "" && rest != "" {
			current += "\n"
		}
		s.controller.SetTranscription(current + rest)
	case "transcript":
		fmt.Fprintln(out, s.controller.Transcription())
	case "occurrence":
		if err := validateTypes(rest, ""); err != nil {
			s.status(err.Error())
			return
		}
		s.controller.SetOccurrenceType(rest)
	case "report-type":
		if err := validateTypes("", rest); err != nil {
			s.status(err.Error())
			return
		}
		s.controller.SetReportType(rest)
	case "generate":
		s.status("generating report...")
		text, err := s.controller.GenerateReport(ctx)
		if err != nil {
			return
		}
		fmt.Fprintln(out, text)
		if s.saveJSON {
			if path, err := s.controller.SaveReportJSON(ctx, ""); err == nil {
				s.ok("saved " + path)
			}
		}
	case "edit":
		s.status("editing report...")
		if text, err := s.controller.EditReport(ctx, rest); err == nil {
			fmt.Fprintln(out, text)
		}
	case "show":
		fmt.Fprintln(out, s.controller.ReportText())
	case "download":
		format, err := model.ParseDocumentFormat(rest)
		if err != nil {
			s.status(err.Error())
			return
		}
		if path, err := s.controller.DownloadReport(ctx, format, s.outputDir); err == nil {
			s.ok("saved " + path)
		}
	case "save":
		if path, err := s.controller.SaveReportJSON(ctx, rest); err == nil {
			s.ok("saved " + path)
		}
	case "types":
		s.app.printTypes()
	case "help":
		s.help()
	default:
		s.status(fmt.Sprintf("unknown command %q (type help)", command))
	}
}

func (s *shell) ok(message string) {
	fmt.Fprintln(s.app.stdout, s.term.render(okStyle, message))
}

func (s *shell) status(message string) {
	fmt.Fprintln(s.app.stdout, s.term.render(statusStyle, message))
}

func (s *shell) help() {
	lines := []string{
		"record                 start or stop the microphone; stopping transcribes",
		"upload <file>          transcribe an audio file",
		"note <text>            add typed text to the transcription",
		"transcript             show the transcription",
		"occurrence <type>      set the occurrence type",
		"report-type <type>     set the report type",
		"generate               draft the report",
		"edit <instructions>    revise the report",
		"show                   show the report",
		"download <pdf|docx>    save the rendered document",
		"save [path]            save the report as JSON",
		"types                  list report and occurrence types",
		"quit                   leave the shell",
	}
	for _, line := range lines {
		fmt.Fprintln(s.app.stdout, s.term.render(helpStyle, "  "+line))
	}
}

func splitCommand(line string) (string, string) {
	line = strings.TrimSpace(line)
	command, rest, _ := strings.Cut(line, " ")
	return strings.ToLower(command), strings.TrimSpace(rest)
}

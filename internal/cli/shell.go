package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"resumebuilder/internal/assistant"
	"resumebuilder/internal/common"
	"resumebuilder/internal/errors"
	"resumebuilder/internal/form"
	"resumebuilder/internal/types"

	"github.com/spf13/cobra"
)

const busyMessage = "busy: a request is in flight"

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Edit the resume interactively",
	Long: `Shell opens an interactive form session. Fields are edited with
"set <field> <value>" (write \n for a line break) and "clear <field>".
AI requests run in the background while editing continues; every other
trigger is refused until the pending request resolves. Type "help" for the
list of commands.`,
	Args: cobra.NoArgs,
	RunE: runShell,
}

var shellFields *fieldFlags

func init() {
	shellFields = addFieldFlags(shellCmd)
}

func runShell(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	a, _, closeAI, err := newAssistant(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer closeAI()

	fp := common.NewFileProcessor(logger, cfg.App.MaxFileSize)
	fields, err := fp.LoadFields(shellFields.fieldInput(cmd))
	if err != nil {
		return err
	}

	sess := form.NewSession("shell")
	sess.Replace(fields)

	return NewShell(a, sess, fp, cmd.InOrStdin(), cmd.OutOrStdout()).Run(cmd.Context())
}

// Shell is a line-oriented front end to one form session
type Shell struct {
	assistant *assistant.Assistant
	sess      *form.Session
	files     *common.FileProcessor
	in        io.Reader
	out       io.Writer

	outMu    sync.Mutex
	inFlight atomic.Bool
	wg       sync.WaitGroup
}

// NewShell creates a shell editing sess
func NewShell(a *assistant.Assistant, sess *form.Session, files *common.FileProcessor, in io.Reader, out io.Writer) *Shell {
	return &Shell{
		assistant: a,
		sess:      sess,
		files:     files,
		in:        in,
		out:       out,
	}
}

// Run reads commands until quit or end of input, then waits for any
// background request to finish
func (sh *Shell) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(sh.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	sh.println(`resumebuilder shell. Type "help" for commands.`)
	for {
		sh.print("> ")
		if !scanner.Scan() {
			break
		}
		if sh.execute(ctx, scanner.Text()) {
			break
		}
	}

	sh.wg.Wait()
	return scanner.Err()
}

// execute runs one command line and reports whether the shell should exit
func (sh *Shell) execute(ctx context.Context, line string) bool {
	name, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(name) {
	case "":
	case "set":
		sh.set(rest)
	case "clear":
		sh.clear(rest)
	case "show":
		sh.println(strings.Join(sh.sess.Snapshot().Lines(), "\n"))
	case "preview":
		sh.preview(ctx)
	case "export":
		sh.export(ctx, rest)
	case "suggest":
		sh.background(ctx, "suggest", func(ctx context.Context) (string, error) {
			result, err := sh.assistant.Suggest(ctx, sh.sess)
			return result.Display(), err
		})
	case "score":
		sh.background(ctx, "score", func(ctx context.Context) (string, error) {
			result, err := sh.assistant.Score(ctx, sh.sess)
			return result.Display(), err
		})
	case "models":
		sh.background(ctx, "models", func(ctx context.Context) (string, error) {
			result, err := sh.assistant.ListModels(ctx, sh.sess)
			return result.Display(), err
		})
	case "status":
		sh.status()
	case "help":
		sh.help()
	case "quit", "exit":
		return true
	default:
		sh.printf("unknown command %q, type \"help\" for the list\n", name)
	}
	return false
}

func (sh *Shell) set(args string) {
	name, value, _ := strings.Cut(args, " ")
	field, err := types.ParseField(name)
	if err != nil {
		sh.printf("error: %v\n", err)
		return
	}
	value = strings.ReplaceAll(strings.TrimSpace(value), `\n`, "\n")
	if err := sh.sess.Set(field, value); err != nil {
		sh.printf("error: %s\n", errors.UserMessage(err))
		return
	}
	sh.printf("%s updated\n", field.Label())
}

func (sh *Shell) clear(args string) {
	field, err := types.ParseField(args)
	if err != nil {
		sh.printf("error: %v\n", err)
		return
	}
	if err := sh.sess.Clear(field); err != nil {
		sh.printf("error: %s\n", errors.UserMessage(err))
		return
	}
	sh.printf("%s cleared\n", field.Label())
}

func (sh *Shell) preview(ctx context.Context) {
	if sh.inFlight.Load() {
		sh.println(busyMessage)
		return
	}
	snap, err := sh.assistant.Preview(ctx, sh.sess)
	if err != nil {
		sh.reportError(err)
		return
	}
	sh.println(strings.Join(snap.Lines(), "\n"))
}

func (sh *Shell) export(ctx context.Context, path string) {
	if sh.inFlight.Load() {
		sh.println(busyMessage)
		return
	}
	if path == "" {
		path = sh.assistant.Exporter().FileName()
	}
	if err := exportToFile(ctx, sh.assistant, sh.sess, sh.files, path); err != nil {
		sh.reportError(err)
		return
	}
	sh.printf("PDF saved as %s\n", path)
}

// background starts an AI request unless one is already pending. The check
// happens before the goroutine starts so a second trigger typed right after
// the first is always refused.
func (sh *Shell) background(ctx context.Context, name string, run func(context.Context) (string, error)) {
	if !sh.inFlight.CompareAndSwap(false, true) {
		sh.println(busyMessage)
		return
	}
	sh.printf("%s: request sent\n", name)

	sh.wg.Add(1)
	go func() {
		defer sh.wg.Done()
		defer sh.inFlight.Store(false)

		text, err := run(ctx)
		if err != nil {
			sh.reportError(err)
			return
		}
		sh.println(text)
	}()
}

func (sh *Shell) status() {
	state := "idle"
	if sh.inFlight.Load() || sh.sess.Busy() {
		state = "busy"
	}
	sh.printf("status: %s\n", state)
	if score, ok := sh.sess.LastScore(); ok {
		sh.printf("last score: %s\n", score.Score)
	}
}

func (sh *Shell) help() {
	sh.println(`commands:
  set <field> <value>  set a field (name, email, phone, summary, experience, education, skills)
  clear <field>        empty a field
  show                 print the current fields
  preview              take a preview snapshot
  export [path]        write the resume as PDF
  suggest              ask for improvement suggestions
  score                ask for an ATS score
  models               list available models
  status               show whether a request is in flight
  help                 show this help
  quit                 leave the shell`)
}

func (sh *Shell) reportError(err error) {
	if errors.IsBusy(err) {
		sh.println(busyMessage)
		return
	}
	sh.printf("error: %s\n", errors.UserMessage(err))
}

func (sh *Shell) print(s string) {
	sh.outMu.Lock()
	defer sh.outMu.Unlock()
	_, _ = io.WriteString(sh.out, s)
}

func (sh *Shell) println(s string) {
	sh.print(s + "\n")
}

func (sh *Shell) printf(format string, args ...any) {
	sh.print(fmt.Sprintf(format, args...))
}

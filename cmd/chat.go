package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"
	"github.com/xhad/advisor/internal/models"
	"go.uber.org/zap"
)

const chatHelp = `Ask about supervisors, their research or your thesis.
  /good  /bad   rate the last answer
  /exit         quit
Ctrl-C stops an answer while it is being written.`

func runChat(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	stream := fs.Bool("stream", a.cfg.Chat.Streaming, "Print answers as they are generated")
	student := registerStudent(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	profile, err := student()
	if err != nil {
		return err
	}
	var sp *models.StudentProfile
	if profile != (models.StudentProfile{}) {
		sp = &profile
	}

	color.Cyan("%s\n", chatHelp)

	var (
		transcript []models.ChatTurn
		feedback   *bool
	)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		color.New(color.FgGreen, color.Bold).Print("\n> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		message := strings.TrimSpace(scanner.Text())

		switch message {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		case "/good", "/bad":
			if !rateLast(transcript, message == "/good") {
				color.Yellow("Nothing to rate yet.\n")
				continue
			}
			feedback = transcript[len(transcript)-1].Feedback
			color.Green("✓ Thanks for the feedback\n")
			continue
		}

		completion, err := chatTurn(ctx, a, *stream, message, transcript, sp, feedback)
		if err != nil {
			color.Red("Error: %s\n", describe(err))
			a.log.Debug("chat turn failed", zap.Error(err))
			continue
		}
		feedback = nil
		if completion.Aborted && completion.Text == "" {
			continue
		}

		transcript = append(transcript,
			models.ChatTurn{Role: models.RoleUser, Content: message},
			models.ChatTurn{Role: models.RoleAssistant, Content: completion.Text},
		)
	}
}

// chatTurn answers one message. An interrupt during the turn aborts it without
// leaving the session.
func chatTurn(ctx context.Context, a *app, streaming bool, message string, transcript []models.ChatTurn, student *models.StudentProfile, feedback *bool) (models.Completion, error) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	if !streaming {
		var completion models.Completion
		err := withSpinner("🤔 Thinking...", func() error {
			var err error
			completion, err = a.engine.ChatTurn(ctx, message, transcript, student, feedback)
			return err
		})
		if err != nil && ctx.Err() != nil {
			color.Yellow("[aborted]\n")
			return models.Completion{Aborted: true}, nil
		}
		if err != nil {
			return completion, err
		}
		printAnswer(completion)
		return completion, nil
	}

	s, err := a.engine.ChatStream(ctx, message, transcript, student, feedback)
	if err != nil {
		return models.Completion{}, err
	}
	fmt.Println()
	for {
		chunk, ok := s.Next(ctx)
		if !ok {
			break
		}
		fmt.Print(chunk)
	}
	completion, err := s.Result()
	if err != nil {
		return completion, err
	}
	if completion.Aborted {
		color.Yellow(" [aborted]")
	}
	fmt.Println()
	if completion.Supervisor != "" {
		fmt.Println(faint("grounded on %s", completion.Supervisor))
	}
	return completion, nil
}

func printAnswer(c models.Completion) {
	fmt.Printf("\n%s\n", c.Text)
	if c.Supervisor != "" {
		fmt.Println(faint("grounded on %s", c.Supervisor))
	}
}

// rateLast records feedback on the most recent assistant turn.
func rateLast(transcript []models.ChatTurn, good bool) bool {
	if len(transcript) == 0 || transcript[len(transcript)-1].Role != models.RoleAssistant {
		return false
	}
	transcript[len(transcript)-1].Feedback = &good
	return true
}

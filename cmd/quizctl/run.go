package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"notes-quiz/internal/domain"
	"notes-quiz/internal/service"
)

const quitCommand = ":q"

// runQuiz plays a quiz over in and out until the questions run out, the
// input ends, or the user types :q. The summary is printed in every case.
func runQuiz(ctx context.Context, svc service.QuizService, req domain.GenerationRequest, in io.Reader, out io.Writer) error {
	result, err := svc.StartQuiz(ctx, req)
	if err != nil {
		return err
	}
	mode := "all questions generated"
	if result.Meta.LazyGeneration {
		mode = "questions generated as you go"
	}
	fmt.Fprintf(out, "Quiz on %s from %s (%d requested, %s). Type %s to stop.\n",
		result.Meta.Course, strings.Join(result.Meta.NotesUsed, ", "), result.Meta.Requested, mode, quitCommand)

	scanner := bufio.NewScanner(in)
	for {
		q, err := svc.CurrentQuestion()
		if err != nil {
			return err
		}
		if q == nil {
			break
		}
		printQuestion(out, q, svc.Progress())

		if !scanner.Scan() {
			break
		}
		answer := scanner.Text()
		if strings.TrimSpace(answer) == quitCommand {
			break
		}

		g, err := svc.SubmitAnswer(ctx, q.ID, answer)
		if err != nil {
			return err
		}
		printGrading(out, g)

		next, err := svc.NextQuestion(ctx)
		if err != nil {
			return err
		}
		if next == nil {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read answer: %w", err)
	}

	summary, err := svc.Summary()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nAnswered %d of %d questions. Score %d/%d (%.1f%%) %s\n",
		summary.Answered, summary.Questions, summary.PointsAwarded, summary.PointsPossible,
		summary.Percentage, strings.Repeat("*", summary.Stars))
	return nil
}

func printQuestion(out io.Writer, q *domain.Question, p domain.QuizProgress) {
	fmt.Fprintf(out, "\nQuestion %d/%d [%s, %d pts]\n%s\n", p.Current, p.Total, q.Type, q.MaxPoints(), q.Prompt)
	for _, opt := range q.Options {
		fmt.Fprintf(out, "  %s\n", opt)
	}
	if q.Type == domain.TypeMultiChoice {
		fmt.Fprintln(out, "(select all that apply, e.g. A, C)")
	}
	fmt.Fprint(out, "> ")
}

func printGrading(out io.Writer, g *domain.Grading) {
	fmt.Fprintf(out, "%s: %d/%d\n%s\n", g.Decision, g.PointsAwarded, g.PointsPossible, g.Explanation)
	for _, c := range g.Citations {
		fmt.Fprintf(out, "  see %s p. %d\n", c.Path, c.Page)
	}
}

// review-cli answers annotation prompts and track confirmations from a
// terminal, talking to a running pitchtrace monitor.
//
// Commands while a frame prompt is open:
//
//	<x> <y>    mark the ball at pixel (x, y)
//	s, skip    ball not visible in this frame
//	q, abort   stop annotating this clip
//
// While a track confirmation is open:
//
//	y, accept  accept the track
//	n, reject  reject it and retry
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/banshee-data/pitchtrace/internal/ball/monitor"
	"github.com/banshee-data/pitchtrace/internal/config"
)

var errNoInput = errors.New("input closed")

type session struct {
	client *monitor.Client
	in     *bufio.Scanner
	out    io.Writer
	poll   time.Duration
}

func main() {
	svc, err := config.LoadServiceConfig()
	if err != nil {
		log.Fatalf("Failed to read environment: %v", err)
	}
	addr := flag.String("monitor", "http://"+svc.Listen, "Monitor base URL")
	poll := flag.Duration("poll", 500*time.Millisecond, "Interval between checks for new prompts")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s := &session{
		client: monitor.NewClient(nil, *addr),
		in:     bufio.NewScanner(os.Stdin),
		out:    os.Stdout,
		poll:   *poll,
	}
	if err := s.run(ctx); err != nil && !errors.Is(err, errNoInput) && !errors.Is(err, context.Canceled) {
		log.Fatalf("%v", err)
	}
}

func (s *session) run(ctx context.Context) error {
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()
	for {
		handled, err := s.step()
		if err != nil {
			return err
		}
		if handled {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// step answers whatever is pending. It reports false when nothing was.
func (s *session) step() (bool, error) {
	pending, err := s.client.Pending()
	if err != nil {
		return false, err
	}
	switch {
	case pending.Prompt != nil:
		p := pending.Prompt
		fmt.Fprintf(s.out, "[%s %d/%d] frame %d (%s) > ", p.Clip, p.Index, p.Total, p.Frame, p.Mode)
		line, err := s.readLine()
		if err != nil {
			return false, err
		}
		req, err := parseAnswer(line, p.Frame)
		if err != nil {
			fmt.Fprintln(s.out, err)
			return true, nil
		}
		if err := s.client.Answer(req); err != nil {
			fmt.Fprintf(s.out, "answer rejected: %v\n", err)
		}
		return true, nil
	case pending.Confirm != nil:
		c := pending.Confirm
		fmt.Fprintf(s.out, "track: %d samples over %d frames; accept? [y/n] > ", len(c.Samples), c.FrameCount)
		line, err := s.readLine()
		if err != nil {
			return false, err
		}
		accept, err := parseVerdict(line)
		if err != nil {
			fmt.Fprintln(s.out, err)
			return true, nil
		}
		if err := s.client.Confirm(accept); err != nil {
			fmt.Fprintf(s.out, "verdict rejected: %v\n", err)
		}
		return true, nil
	}
	return false, nil
}

func (s *session) readLine() (string, error) {
	if !s.in.Scan() {
		if err := s.in.Err(); err != nil {
			return "", err
		}
		return "", errNoInput
	}
	return strings.TrimSpace(s.in.Text()), nil
}

func parseAnswer(line string, frame int) (monitor.AnswerRequest, error) {
	req := monitor.AnswerRequest{Frame: frame}
	switch strings.ToLower(line) {
	case "s", "skip":
		req.Action = "skip"
		return req, nil
	case "q", "abort":
		req.Action = "abort"
		return req, nil
	}
	fields := strings.Fields(strings.ReplaceAll(line, ",", " "))
	if len(fields) != 2 {
		return req, fmt.Errorf("expected \"x y\", skip or abort; got %q", line)
	}
	x, errX := strconv.ParseFloat(fields[0], 64)
	y, errY := strconv.ParseFloat(fields[1], 64)
	if errX != nil || errY != nil {
		return req, fmt.Errorf("bad coordinates %q", line)
	}
	req.Action, req.X, req.Y = "point", x, y
	return req, nil
}

func parseVerdict(line string) (bool, error) {
	switch strings.ToLower(line) {
	case "y", "yes", "accept":
		return true, nil
	case "n", "no", "reject":
		return false, nil
	}
	return false, fmt.Errorf("answer y or n; got %q", line)
}

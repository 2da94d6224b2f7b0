//go:build !(rp2040 || rp2350)

// Command robotctl sends console-syntax commands to a running robotd.
//
//	robotctl -url http://robot.local:8000 forward 1000
//	robotctl distance
//	echo "left; forward 500" | robotctl
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"robotcode-go/services/client"
	"robotcode-go/services/console"
)

func main() {
	base := flag.String("url", envOr("ROBOT_URL", "http://localhost:8000"), "robot control server")
	flag.Parse()

	c, err := client.New(*base, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "robotctl:", err)
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var lines []string
	if flag.NArg() > 0 {
		lines = []string{strings.Join(flag.Args(), " ")}
	}
	if err := run(ctx, c, lines, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "robotctl:", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// run executes lines, or every line of in when lines is empty. Commands on
// one line may be separated by ';'. It stops at the first failure.
func run(ctx context.Context, c *client.Client, lines []string, in io.Reader, out io.Writer) error {
	if len(lines) == 0 {
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			lines = append(lines, sc.Text())
		}
		if err := sc.Err(); err != nil {
			return err
		}
	}
	for _, line := range lines {
		for _, cmd := range strings.Split(line, ";") {
			if err := exec(ctx, c, strings.TrimSpace(cmd), out); err != nil {
				return err
			}
		}
	}
	return nil
}

func exec(ctx context.Context, c *client.Client, cmd string, out io.Writer) error {
	if cmd == "" || strings.HasPrefix(cmd, "#") {
		return nil
	}
	if cmd == "distance" {
		d, err := c.Distance(ctx)
		if err != nil {
			return err
		}
		if d < 0 {
			fmt.Fprintln(out, "distance: none")
		} else {
			fmt.Fprintf(out, "distance: %dmm\n", d)
		}
		return nil
	}
	a, err := console.ParseAction(cmd)
	if err != nil {
		return err
	}
	views, err := c.Send(ctx, a)
	if err != nil {
		return err
	}
	for _, v := range views {
		fmt.Fprintf(out, "%s %s\n", v.ID, v.Command)
	}
	return nil
}

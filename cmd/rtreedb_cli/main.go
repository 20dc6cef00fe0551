// rtreedb_cli is an interactive shell over one spatial index directory.
//
// Commands:
//
//	INSERT <x> <y> <payload...>   index a point with its payload
//	SEARCH <x> <y>                payloads stored at exactly that point
//	STATS                         index counters and tree height
//	HELP                          command summary
//	EXIT                          checkpoint and quit
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/sushant-115/rtreedb/core/indexmanager"
	"github.com/sushant-115/rtreedb/pkg/logger"
)

func main() {
	dir := flag.String("dir", "rtreedb_data", "index directory")
	logLevel := flag.String("log-level", "warn", "minimum log level")
	flag.Parse()

	zapLogger, err := logger.New(logger.Config{
		Level:      *logLevel,
		Format:     "console",
		OutputFile: "stderr",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer zapLogger.Sync()

	manager, err := indexmanager.NewSpatialIndexManager(*dir, zapLogger, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open index in %s: %v\n", *dir, err)
		os.Exit(1)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "rtreedb> ",
		HistoryFile:     filepath.Join(*dir, ".rtreedb_history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize readline: %v\n", err)
		manager.Close()
		os.Exit(1)
	}
	defer rl.Close()

	fmt.Printf("rtreedb shell — index directory %s (HELP for commands)\n", *dir)

	ctx := context.Background()
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}
		if done := dispatch(ctx, manager, strings.TrimSpace(line)); done {
			break
		}
	}

	if err := manager.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to close index: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("bye")
}

// dispatch executes one shell command. It returns true when the shell
// should exit.
func dispatch(ctx context.Context, manager *indexmanager.SpatialIndexManager, line string) bool {
	if line == "" {
		return false
	}
	fields := strings.Fields(line)
	command := strings.ToUpper(fields[0])

	switch command {
	case "INSERT":
		if len(fields) < 4 {
			fmt.Println("usage: INSERT <x> <y> <payload...>")
			return false
		}
		point, err := parsePoint(fields[1], fields[2])
		if err != nil {
			fmt.Printf("error: %v\n", err)
			return false
		}
		payload := strings.Join(fields[3:], " ")
		res, err := manager.InsertPoint(ctx, point, payload)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			return false
		}
		fmt.Printf("OK object_id=%d splits=%d\n", res.ObjectID, res.Splits)

	case "SEARCH":
		if len(fields) != 3 {
			fmt.Println("usage: SEARCH <x> <y>")
			return false
		}
		point, err := parsePoint(fields[1], fields[2])
		if err != nil {
			fmt.Printf("error: %v\n", err)
			return false
		}
		results, err := manager.SearchPoint(ctx, point)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			return false
		}
		if len(results) == 0 {
			fmt.Println("(no results)")
			return false
		}
		for i, payload := range results {
			fmt.Printf("%d: %s\n", i, payload)
		}

	case "STATS":
		stats, err := manager.Stats()
		if err != nil {
			fmt.Printf("error: %v\n", err)
			return false
		}
		fmt.Printf("objects=%d nodes=%d height=%d root=%d\n",
			stats.Objects, stats.Nodes, stats.Height, stats.RootID)

	case "HELP":
		fmt.Println("INSERT <x> <y> <payload...>  index a point")
		fmt.Println("SEARCH <x> <y>               payloads at exactly that point")
		fmt.Println("STATS                        index counters and tree height")
		fmt.Println("EXIT                         checkpoint and quit")

	case "EXIT", "QUIT":
		return true

	default:
		fmt.Printf("unknown command %q (HELP for commands)\n", fields[0])
	}
	return false
}

func parsePoint(xs, ys string) ([]float64, error) {
	x, err := strconv.ParseFloat(xs, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid x coordinate %q", xs)
	}
	y, err := strconv.ParseFloat(ys, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid y coordinate %q", ys)
	}
	return []float64{x, y}, nil
}

package main

import (
	"flag"
	"fmt"
	"os"

	"esupchat/pkg/logger"
	"esupchat/pkg/store"
)

// inspect is an operator tool that opens a database offline and prints a
// user's conversations, or one conversation's transcript.
func main() {
	var (
		dbPath = flag.String("db", "", "pebble DB path")
		userID = flag.String("user", "", "user id to list conversations for")
		convID = flag.String("conv", "", "conversation id to dump (requires -user)")
	)
	flag.Parse()
	if *dbPath == "" || *userID == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect -db <path> -user <id> [-conv <id>]")
		os.Exit(2)
	}
	logger.Init()

	if err := store.Open(*dbPath); err != nil {
		fmt.Fprintf(os.Stderr, "open %s: %v\n", *dbPath, err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	if *convID != "" {
		msgs, err := store.GetMessages(*convID, *userID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "get messages: %v\n", err)
			os.Exit(1)
		}
		for _, m := range msgs {
			fmt.Printf("[%d] %-9s %s\n", m.TS, m.Role, m.Content)
			for _, inv := range m.Invocations {
				fmt.Printf("           -> %s(%s) id=%s\n", inv.Name, string(inv.Arguments), inv.ID)
			}
		}
		return
	}

	convs, err := store.ListConversations(*userID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "list conversations: %v\n", err)
		os.Exit(1)
	}
	for _, c := range convs {
		fmt.Printf("%s  created=%d  %q\n", c.ID, c.CreatedTS, c.Title)
	}
}

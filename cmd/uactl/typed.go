package main

import (
	"context"
	"flag"
	"strings"
)

// common handles the verbs shared by every collection.
func common[T any](ctx context.Context, g globals, c *apiClient, collection, verb string, args []string) (bool, error) {
	switch verb {
	case "list", "mine", "by":
		fs := flag.NewFlagSet(verb, flag.ContinueOnError)
		user := fs.String("user", "", "owner id")
		if err := fs.Parse(args); err != nil {
			return true, usageError{msg: err.Error()}
		}
		if verb == "by" && *user == "" {
			return true, usageError{msg: "need -user"}
		}
		scope := verb
		if verb == "list" {
			scope = "all"
		}
		var out []viewed[T]
		if err := c.list(ctx, collection, scope, *user, &out); err != nil {
			return true, err
		}
		printJSON(g.stdout, out)
		return true, nil

	case "get", "rm":
		fs := flag.NewFlagSet(verb, flag.ContinueOnError)
		id := fs.Int64("id", 0, "record id")
		if err := fs.Parse(args); err != nil {
			return true, usageError{msg: err.Error()}
		}
		if *id <= 0 {
			return true, usageError{msg: "need -id"}
		}
		if verb == "rm" {
			return true, c.remove(ctx, collection, *id)
		}
		var out viewed[T]
		if err := c.get(ctx, collection, *id, &out); err != nil {
			return true, err
		}
		printJSON(g.stdout, out)
		return true, nil
	}
	return false, nil
}

func cmdMessages(ctx context.Context, g globals, c *apiClient, collection, verb string, args []string) error {
	if handled, err := common[message](ctx, g, c, collection, verb, args); handled {
		return err
	}

	fs := flag.NewFlagSet(verb, flag.ContinueOnError)
	id := fs.Int64("id", 0, "record id")
	content := fs.String("content", "", "message text")
	if err := fs.Parse(args); err != nil {
		return usageError{msg: err.Error()}
	}
	in := map[string]string{"content": *content}

	var out viewed[message]
	switch verb {
	case "add":
		if err := c.create(ctx, collection, in, &out); err != nil {
			return err
		}
	case "edit":
		if *id <= 0 {
			return usageError{msg: "need -id"}
		}
		if err := c.update(ctx, collection, *id, in, &out); err != nil {
			return err
		}
	default:
		return usageError{msg: "unknown msg subcommand " + verb}
	}
	printJSON(g.stdout, out)
	return nil
}

func cmdMapStates(ctx context.Context, g globals, c *apiClient, collection, verb string, args []string) error {
	if handled, err := common[mapState](ctx, g, c, collection, verb, args); handled {
		return err
	}

	fs := flag.NewFlagSet(verb, flag.ContinueOnError)
	id := fs.Int64("id", 0, "record id")
	name := fs.String("name", "", "map name")
	stateFile := fs.String("state", "", "state document file ('-'=stdin)")
	if err := fs.Parse(args); err != nil {
		return usageError{msg: err.Error()}
	}
	// the server validates required fields; an absent file just sends an empty state
	var state string
	if *stateFile != "" {
		b, err := readAll(g.stdin, *stateFile)
		if err != nil {
			return err
		}
		state = strings.TrimRight(string(b), "\n")
	}
	in := map[string]string{"name": *name, "state": state}

	var out viewed[mapState]
	switch verb {
	case "add":
		if err := c.create(ctx, collection, in, &out); err != nil {
			return err
		}
	case "edit":
		if *id <= 0 {
			return usageError{msg: "need -id"}
		}
		if err := c.update(ctx, collection, *id, in, &out); err != nil {
			return err
		}
	default:
		return usageError{msg: "unknown map subcommand " + verb}
	}
	printJSON(g.stdout, out)
	return nil
}

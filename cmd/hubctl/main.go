package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/dmitrijs2005/recordhub/internal/common"
	"github.com/dmitrijs2005/recordhub/internal/hubctl"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: hubctl [-s server] register|login|get <id>|list")
}

func main() {
	server := flag.String("s", "http://localhost:8080", "server base URL")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	ctx := context.Background()
	client := hubctl.NewClient(*server)
	reader := bufio.NewReader(os.Stdin)

	var err error
	switch args[0] {
	case "register":
		err = runRegister(ctx, client, reader)
	case "login":
		err = login(ctx, client, reader)
	case "get":
		if len(args) < 2 {
			usage()
			os.Exit(2)
		}
		err = runGet(ctx, client, reader, args[1])
	case "list":
		err = runList(ctx, client, reader)
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func runRegister(ctx context.Context, client *hubctl.Client, reader *bufio.Reader) error {
	name, err := hubctl.GetSimpleText(reader, "Enter name", os.Stdout)
	if err != nil {
		return err
	}
	email, err := hubctl.GetSimpleText(reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}
	password, err := hubctl.GetPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	record, err := client.Register(ctx, map[string]any{
		"name":     name,
		"email":    email,
		"password": string(password),
	})
	if err != nil {
		return err
	}

	fmt.Printf("registered: %s\n", record.ID)
	return nil
}

func login(ctx context.Context, client *hubctl.Client, reader *bufio.Reader) error {
	email, err := hubctl.GetSimpleText(reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}
	password, err := hubctl.GetPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	identity, err := client.Login(ctx, map[string]any{
		"email":    email,
		"password": string(password),
	})
	if err != nil {
		return err
	}

	fmt.Printf("logged in as %s\n", identity.ID)
	return nil
}

func runGet(ctx context.Context, client *hubctl.Client, reader *bufio.Reader, id string) error {
	if err := login(ctx, client, reader); err != nil {
		return err
	}

	record, err := client.GetRecord(ctx, id)
	if err != nil {
		return err
	}

	fmt.Printf("%s\n", record.ID)
	for name, value := range record.Fields {
		fmt.Printf("  %s: %v\n", name, value)
	}
	return nil
}

func runList(ctx context.Context, client *hubctl.Client, reader *bufio.Reader) error {
	if err := login(ctx, client, reader); err != nil {
		return err
	}

	records, total, err := client.ListRecords(ctx, 1, 20)
	if err != nil {
		return err
	}

	fmt.Printf("%d record(s) total\n", total)
	for _, record := range records {
		fmt.Printf("  %s %v\n", record.ID, record.Fields)
	}
	return nil
}

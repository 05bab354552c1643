package main

import (
	"context"
	"os"

	"github.com/paddock/raceline/ingester/ingestclient"

	"github.com/alecthomas/kingpin"
)

func main() {
	a := newApp()
	cmd := kingpin.MustParse(a.Parse(os.Args[1:]))

	client := ingestclient.New(*a.addr, *a.secret, *a.timeout)
	if err := a.execute(context.Background(), client, cmd, os.Stdout); err != nil {
		a.Fatalf("%s", err)
	}
}

package main

import "github.com/paddock/raceline/ingester/cmd"

func main() {
	cmd.Run(cmd.ParseFlags())
}

package main

import "github.com/genfinafrica/genfin-chat/cmd"

func main() {
	cmd.Execute()
}

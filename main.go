package main

import "github.com/Daskott/safecircle/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/weavecode/weave/cmd"

func main() {
	cmd.Execute()
}

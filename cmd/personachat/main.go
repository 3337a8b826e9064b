package main

import "github.com/habiliai/personachat/cmd/personachat/cmd"

func main() {
	cmd.Execute()
}

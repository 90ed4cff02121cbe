package main

import "github.com/burakenal/data/cmd"

func main() {
	cmd.Execute()
}

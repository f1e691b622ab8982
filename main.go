package main

import (
	"waveger/cmd"
)

func main() {
	cmd.Execute()
}

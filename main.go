package main

import "tradesim/cmd"

func main() {
	cmd.Execute()
}

package main

import "neurotutor-cli/cmd"

func main() {
	cmd.Execute()
}

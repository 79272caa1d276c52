package main

import "github.com/openlearn/learning-management/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/Temutjin2k/ladies-drive/cmd/ladies-drive/command"

func main() {
	command.Execute()
}

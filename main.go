package main

import "github.com/gartnera/lite-confine/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/jjenkins/parliament/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/markb/sqlstep/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/ti-mo/bandix/cmd"

func main() {
	cmd.Execute()
}

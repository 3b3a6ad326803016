package main

import "github.com/Mohsinsiddi/w3studio/cmd"

func main() {
	cmd.Execute()
}

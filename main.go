package main

import "github.com/Mohsinsiddi/sav3/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/pders01/shotvault/cmd"

func main() {
	cmd.Execute()
}

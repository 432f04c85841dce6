package main

import "agzip/cmd"

func main() {
	cmd.Execute()
}

package main

import "github.com/KanoComputing/aws-tools/cmd"

func main() {
	cmd.Execute()
}

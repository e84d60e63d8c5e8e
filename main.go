package main

import "github.com/KaramelBytes/metabopair/cmd"

func main() {
	cmd.Execute()
}

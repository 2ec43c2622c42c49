package main

import "github.com/dscnitrourkela/project-zucchini/cmd/server/cmd"

func main() {
	cmd.Execute()
}

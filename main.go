package main

import (
	"context"

	"github.com/cube2222/connplan/cmd"
)

func main() {
	cmd.Execute(context.Background())
}

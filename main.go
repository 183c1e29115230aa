/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package main

import (
	"github.com/josephgoksu/PageWing/cmd"
	"github.com/josephgoksu/PageWing/internal/logger"
)

func main() {
	defer logger.HandlePanic()
	cmd.Execute()
}

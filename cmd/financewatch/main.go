package main

import (
	"financewatch/cmd/handlers"
	"financewatch/internal/logger"
)

func main() {
	logger.Init() // Initialize the logger
	handlers.Execute()
}

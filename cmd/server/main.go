package main

import "messaging-backend/internal/app"

func main() {
	app.Run()
}

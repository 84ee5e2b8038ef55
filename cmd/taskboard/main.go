package main

import "taskboard/internal/app"

// @title                       taskboard API
// @version                     1.0
// @description                 Projects, tasks and the member dashboard.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	app.Run()
}

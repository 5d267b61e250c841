// Command authd runs the user service.
//
// @title                       User Service API
// @version                     1.0
// @description                 Authentication, session and account administration.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

func main() {
	Execute()
}

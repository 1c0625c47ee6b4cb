package main

import "pos/cmd"

// @title POS API
// @version 1.0
// @description Point-of-sale register, catalogue and backoffice reporting API
// @host localhost:5000
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cmd.Execute()
}

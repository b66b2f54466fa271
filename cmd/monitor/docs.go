package main

//go:generate swag init -g cmd/monitor/main.go -o docs

// @title           Edgescout Monitor API
// @version         0.1.0
// @description     Exploitability scores, shadow decisions and hypothesis validation.
// @host            localhost:8080
// @BasePath        /
// @schemes         http

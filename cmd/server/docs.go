package main

//go:generate swag init -g cmd/server/main.go -o docs

// @title           YieldHub Sync API
// @version         0.1.0
// @description     Yield pool synchronization, reconciliation, and holder analytics controls.
// @host            localhost:8080
// @BasePath        /
// @schemes         http

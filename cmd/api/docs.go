package main

// @title           PMS Console API
// @version         1.0
// @description     Conversational front door for the hotel property-management system

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description JWT authentication header using the Bearer scheme. Example: "Bearer {token}"

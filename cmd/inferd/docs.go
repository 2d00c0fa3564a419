package main

// General API documentation for swaggo. Run `swag init` to generate docs.
//
// @title           inferd API
// @version         1.0
// @description     Local HTTP inference API for a single loaded model.
//
// @BasePath  /
//
// @schemes http

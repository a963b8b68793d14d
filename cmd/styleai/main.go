// Package main provides the styleai web front end.
//
// Usage:
//
//	styleai serve --addr :8080 --api-base http://127.0.0.1:5000
//	styleai version
package main

func main() {
	Execute()
}

// Package study is the line-oriented terminal front-end. It reads single
// letter commands, drives a session controller and prints the visible card
// whenever the session changes.
package study

// Package testsupport provides shared constructors for package tests.
package testsupport

// Package calendly implements the calendly tool on the Calendly v2 REST API.
package calendly

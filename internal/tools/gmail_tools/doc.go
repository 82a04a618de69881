// Package gmail_tools provides the gmail tool. Mail goes out through the
// Gmail API when the shared Google credential is available and through
// SMTP with an app password otherwise; mailbox reads need the API.
package gmail_tools

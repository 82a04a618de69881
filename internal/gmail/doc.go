// Package gmail sends and reads mail for the gmail tool.
//
// Two transports are supported. Client talks to the Gmail v1 API through a
// *gmail.Service owned by google.Auth; SMTPSender submits mail to
// smtp.gmail.com with an app password when no Google credential exists.
// Both send the same Message, rendered as RFC 5322 text by Message.Build.
package gmail

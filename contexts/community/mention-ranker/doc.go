// Package mentionranker keeps track of whom each member mentions in poll
// notifications and ranks the member roster for the mention picker.
package mentionranker

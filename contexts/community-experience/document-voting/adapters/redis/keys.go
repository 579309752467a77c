package redisadapter

import "strings"

const keyPrefix = "docvote:"

func documentKey(documentID string) string {
	return keyPrefix + "document:" + documentID
}

func positiveKey(documentID string) string {
	return documentKey(documentID) + ":vote:positive"
}

func negativeKey(documentID string) string {
	return documentKey(documentID) + ":vote:negative"
}

func allDocumentsKey() string {
	return keyPrefix + "documents"
}

func kindKey(kind string) string {
	return keyPrefix + "kind:" + strings.ToLower(kind) + ":documents"
}

func voterKey(voterID string) string {
	return keyPrefix + "voter:" + voterID + ":documents"
}

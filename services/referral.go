package services

import (
	"net/url"
	"strings"
)

// ReferralParam is the query parameter carrying the referrer's email.
const ReferralParam = "ref"

// ReferralLink builds the link a member shares to credit their referrals.
func ReferralLink(baseURL, email string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" {
		return strings.TrimRight(baseURL, "?") + "?" + ReferralParam + "=" + url.QueryEscape(email)
	}
	q := u.Query()
	q.Set(ReferralParam, email)
	u.RawQuery = q.Encode()
	return u.String()
}

// ReferrerFromURL extracts the referrer email from a referral link.
func ReferrerFromURL(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	email := strings.TrimSpace(u.Query().Get(ReferralParam))
	return email, email != ""
}

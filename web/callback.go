package web

import (
	"encoding/base64"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/deemkeen/inkblock/session"
	"github.com/gin-gonic/gin"
)

const (
	callbackDone      = "Login complete. You can close this window and return to your terminal."
	callbackCancelled = "Login cancelled. You can close this window."
)

// HandleCallback receives the identity provider's redirect and completes the
// matching pending login.
func HandleCallback(c *gin.Context, logins LoginCallbacks) {
	state := c.Query("state")
	if state == "" {
		c.String(http.StatusBadRequest, "missing state")
		return
	}

	if reason := c.Query("error"); reason != "" {
		if err := logins.Reject(state, reason); err != nil {
			callbackFailed(c, state, err)
			return
		}
		log.Printf("Login %s rejected by identity provider: %s", state, reason)
		c.String(http.StatusOK, callbackCancelled)
		return
	}

	delegation, err := parseDelegation(c)
	if err != nil {
		log.Printf("Login %s: malformed callback: %v", state, err)
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	if err := logins.Resolve(state, delegation); err != nil {
		callbackFailed(c, state, err)
		return
	}

	c.String(http.StatusOK, callbackDone)
}

func callbackFailed(c *gin.Context, state string, err error) {
	log.Printf("Login %s: %v", state, err)
	if errors.Is(err, session.ErrUnknownLoginState) {
		c.String(http.StatusNotFound, "unknown or expired login")
		return
	}
	c.String(http.StatusInternalServerError, "login failed")
}

func parseDelegation(c *gin.Context) (session.Delegation, error) {
	var d session.Delegation

	d.Chain = c.Query("delegation")
	if d.Chain == "" {
		return d, errors.New("missing delegation")
	}

	userKey, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(c.Query("user_key"), "="))
	if err != nil || len(userKey) == 0 {
		return d, errors.New("missing or malformed user_key")
	}
	d.UserPublicKey = userKey

	if exp := c.Query("expiration"); exp != "" {
		ns, err := strconv.ParseInt(exp, 10, 64)
		if err != nil {
			return d, errors.New("malformed expiration")
		}
		d.Expiration = time.Unix(0, ns)
	}

	return d, nil
}

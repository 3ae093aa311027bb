package store

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

const defaultStorePort = "6379"

type storeConnInfo struct {
	addr     string
	username string
	password string
	selectDB int
	useTLS   bool
}

// parseStoreURL 은 redis://, rediss://, valkey://, valkeys:// URL 과 스킴 없는 host[:port] 를 받는다.
// 경로는 DB 번호이고, 포트가 없으면 6379 다.
func parseStoreURL(raw string) (storeConnInfo, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return storeConnInfo{}, errors.New("store url is empty")
	}
	if !strings.Contains(raw, "://") {
		if ip := net.ParseIP(raw); ip != nil && ip.To4() == nil {
			raw = "[" + raw + "]"
		}
		raw = "redis://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return storeConnInfo{}, fmt.Errorf("parse store url: %w", err)
	}

	var info storeConnInfo
	switch strings.ToLower(u.Scheme) {
	case "redis", "valkey":
	case "rediss", "valkeys":
		info.useTLS = true
	default:
		return storeConnInfo{}, fmt.Errorf("unsupported store scheme %q", u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return storeConnInfo{}, errors.New("store host missing")
	}
	port := u.Port()
	if port == "" {
		port = defaultStorePort
	}
	info.addr = net.JoinHostPort(host, port)

	if db := strings.Trim(u.Path, "/"); db != "" {
		n, err := strconv.Atoi(db)
		if err != nil || n < 0 {
			return storeConnInfo{}, fmt.Errorf("invalid store db %q", db)
		}
		info.selectDB = n
	}
	if u.User != nil {
		info.username = u.User.Username()
		info.password, _ = u.User.Password()
	}
	return info, nil
}

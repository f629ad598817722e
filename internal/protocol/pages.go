package protocol

import (
	"strings"

	"github.com/nao1215/lure/internal/model"
)

// serverHeaders are the advertised Server header values.
var serverHeaders = []string{
	"Apache/2.4.29 (Ubuntu)",
	"nginx/1.14.0 (Ubuntu)",
	"lighttpd/1.4.45",
	"Microsoft-IIS/10.0",
	"gunicorn/20.1.0",
	"AmazonS3",
}

// poweredByHeaders are the advertised X-Powered-By header values.
var poweredByHeaders = []string{
	"PHP/7.3.11",
	"ASP.NET",
	"Express",
	"Django",
	"Werkzeug/2.0.1",
	"Node.js",
}

const (
	wordPressLoginPage = "<html><body><h1>WordPress Login</h1>" +
		"<form><label>Username</label><input type='text' name='log' />" +
		"<label>Password</label><input type='password' name='pwd' />" +
		"<input type='submit' value='Log In' /></form>" +
		"</body></html>"

	phpMyAdminPage = "<html><body><h1>phpMyAdmin</h1>" +
		"<form><label>Username</label><input type='text' name='pma_username' />" +
		"<label>Password</label><input type='password' name='pma_password' />" +
		"<input type='submit' value='Go' /></form>" +
		"</body></html>"

	envFile = "APP_KEY=base64:psJxQ0ZkVJ9K8lkz2YoKZm\nDB_PASSWORD=secret"

	phpConfigFile = "<?php\n$db_host='localhost';\n$db_user='root';\n$db_pass='password';\n?>"

	productPage = "<html><body><h1>Products</h1><p>Product ID: 1</p><p>Name: Widget</p>" +
		"<form action='' method='post'><input name='id' /><input type='submit' value='Submit' /></form>" +
		"<!-- SQL Injection hint -->" +
		"</body></html>"

	adminPage = "<html><body><h1>Administration</h1><p>This area is restricted.</p>" +
		"<a href='/admin.php'>Admin</a>" +
		"</body></html>"

	welcomePage = "<html><body><h1>Welcome</h1><p>Hello there!</p></body></html>"
)

// genericPages are wrapped in <html><body> and chosen at random when no
// decoy applies.
var genericPages = []string{
	"<h1>Welcome to our site!</h1><p>Under construction...</p>",
	"<h1>Shop</h1><p>Out of stock.</p>",
	"<h1>Blog</h1><p>No posts yet.</p>",
	"<h1>404 Not Found</h1><p>The requested resource could not be found.</p>",
}

// responseBody picks the decoy for a request: path decoys first, then
// tool-specific pages, then a random generic page. pick returns a value in
// [0, n).
func responseBody(path string, tool model.Tool, pick func(n int) int) string {
	lower := strings.ToLower(path)
	switch {
	case strings.Contains(lower, "wp-login"), strings.Contains(lower, "wp-admin"):
		return wordPressLoginPage
	case strings.Contains(lower, "phpmyadmin"):
		return phpMyAdminPage
	case strings.HasSuffix(lower, "/.env"):
		return envFile
	case strings.HasSuffix(lower, "config.php"), strings.HasSuffix(lower, "config.inc.php"):
		return phpConfigFile
	}

	switch tool {
	case model.ToolSQLMap:
		return productPage
	case model.ToolNikto:
		return adminPage
	case model.ToolNmap:
		return welcomePage
	}

	return "<html><body>" + genericPages[pick(len(genericPages))] + "</body></html>"
}

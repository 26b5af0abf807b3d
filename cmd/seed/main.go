package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"time"
)

// Seeds a running server with a demo account, sample bugs and test
// cases, and links each test case to one bug.

const (
	demoUsername = "demo_tester"
	demoEmail    = "demo@example.com"
	demoPassword = "demo123456"
)

type entity struct {
	ID uint `json:"id"`
}

func main() {
	baseURL := flag.String("base-url", "http://localhost:8080", "server base URL")
	bugCount := flag.Int("bugs", 5, "number of sample bugs to create")
	caseCount := flag.Int("cases", 3, "number of sample test cases to create")
	flag.Parse()

	jar, err := cookiejar.New(nil)
	if err != nil {
		log.Fatalf("cookie jar: %v", err)
	}
	client := &http.Client{
		Jar:     jar,
		Timeout: 10 * time.Second,
		// Keep redirect responses visible so the login cookie check works.
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	register(client, *baseURL)
	login(client, *baseURL)

	bugIDs := make([]uint, 0, *bugCount)
	for i := 1; i <= *bugCount; i++ {
		body := fmt.Sprintf(`{
			"title": "示例缺陷 %d：登录页面在提交后白屏",
			"description": "在测试环境使用 Chrome 浏览器打开登录页面，输入正确的账号密码并点击登录按钮后，页面变为白屏，控制台出现 JS 报错。",
			"severity": "high",
			"priority": "p1",
			"bug_type": "functional",
			"environment": "test"
		}`, i)
		var bug entity
		postJSON(client, *baseURL+"/bugs/create", body, http.StatusCreated, &bug)
		bugIDs = append(bugIDs, bug.ID)
		log.Printf("created bug #%d", bug.ID)
	}

	for i := 1; i <= *caseCount; i++ {
		body := fmt.Sprintf(`{
			"title": "示例用例 %d：验证用户登录流程",
			"description": "验证注册用户使用正确的邮箱和密码能够成功登录系统并跳转到首页。",
			"steps": "1. 打开登录页面\n2. 输入邮箱和密码\n3. 点击登录按钮",
			"expected_result": "登录成功，跳转到缺陷列表页",
			"preconditions": "用户已注册",
			"priority": "p1",
			"test_type": "functional",
			"module": "用户认证"
		}`, i)
		var tc entity
		postJSON(client, *baseURL+"/test-cases/create", body, http.StatusCreated, &tc)
		log.Printf("created test case #%d", tc.ID)

		if len(bugIDs) > 0 {
			bugID := bugIDs[(i-1)%len(bugIDs)]
			link := fmt.Sprintf(`{"bug_id": %d}`, bugID)
			postJSON(client, fmt.Sprintf("%s/test-cases/%d/link-bug", *baseURL, tc.ID), link, http.StatusOK, nil)
			log.Printf("linked test case #%d to bug #%d", tc.ID, bugID)
		}
	}

	log.Printf("seeding complete: %d bugs, %d test cases", len(bugIDs), *caseCount)
}

func register(client *http.Client, baseURL string) {
	body := fmt.Sprintf(`{"username": %q, "email": %q, "password": %q, "confirm_password": %q}`,
		demoUsername, demoEmail, demoPassword, demoPassword)
	resp, err := client.Post(baseURL+"/auth/register", "application/json", bytes.NewBufferString(body))
	if err != nil {
		log.Fatalf("register: %v (is the server running?)", err)
	}
	defer resp.Body.Close()

	// A repeated run hits the duplicate-email validation; that is fine,
	// the account already exists.
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		log.Fatalf("register failed, status %d: %s", resp.StatusCode, payload)
	}
	log.Printf("demo account %s ready", demoEmail)
}

func login(client *http.Client, baseURL string) {
	body := fmt.Sprintf(`{"email": %q, "password": %q}`, demoEmail, demoPassword)
	resp, err := client.Post(baseURL+"/auth/login", "application/json", bytes.NewBufferString(body))
	if err != nil {
		log.Fatalf("login: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		log.Fatalf("login failed, status %d: %s", resp.StatusCode, payload)
	}
	log.Println("logged in")
}

func postJSON(client *http.Client, url, body string, wantStatus int, out any) {
	resp, err := client.Post(url, "application/json", bytes.NewBufferString(body))
	if err != nil {
		log.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		payload, _ := io.ReadAll(resp.Body)
		log.Fatalf("POST %s: status %d, body: %s", url, resp.StatusCode, payload)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			log.Fatalf("decode response from %s: %v", url, err)
		}
	}
}

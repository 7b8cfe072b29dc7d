package auth

import (
	"fmt"
	"strings"
)

// ShowAuthExtractionGuide displays step-by-step instructions for filling
// in the auth.json fields from a logged-in browser session
func ShowAuthExtractionGuide() {
	fmt.Println(strings.Repeat("=", 72))
	fmt.Println("AUTH SETUP GUIDE")
	fmt.Println(strings.Repeat("=", 72))
	fmt.Println()

	fmt.Println("The scraper needs five values from a logged-in browser session.")
	fmt.Println()

	fmt.Println("STEP 1: Log in")
	fmt.Println("   - Open the platform in your browser and log in")
	fmt.Println()

	fmt.Println("STEP 2: Open Developer Tools")
	fmt.Println("   - Chrome/Edge/Brave: F12 or Ctrl+Shift+I (Cmd+Option+I on Mac)")
	fmt.Println("   - Firefox: F12 or Ctrl+Shift+I (Cmd+Option+I on Mac)")
	fmt.Println()

	fmt.Println("STEP 3: Go to the Network tab and refresh the page")
	fmt.Println("   - Click any API request to the platform domain")
	fmt.Println("   - Open the Request Headers section")
	fmt.Println()

	fmt.Println("STEP 4: Copy these values:")
	fmt.Println("   sess        cookie value named 'sess'")
	fmt.Println("   auth_id     cookie value named 'auth_id'")
	fmt.Println("   auth_uid    cookie value named 'auth_uid_<id>' (2FA accounts only)")
	fmt.Println("   user_agent  the User-Agent request header, copied exactly")
	fmt.Println("   x-bc        the x-bc request header")
	fmt.Println()

	fmt.Println("STEP 5: Store them")
	fmt.Println("   - Run: subscraper auth set")
	fmt.Println("   - Or edit auth.json in your profile directory:")
	fmt.Println()
	fmt.Println(`   {`)
	fmt.Println(`     "auth": {`)
	fmt.Println(`       "sess": "...",`)
	fmt.Println(`       "auth_id": "...",`)
	fmt.Println(`       "auth_uid": "",`)
	fmt.Println(`       "user_agent": "Mozilla/5.0 ...",`)
	fmt.Println(`       "x-bc": "..."`)
	fmt.Println(`     }`)
	fmt.Println(`   }`)
	fmt.Println()

	fmt.Println("Notes:")
	fmt.Println("   - The user_agent must match the browser the cookies came from,")
	fmt.Println("     or request signing will fail with 401 errors")
	fmt.Println("   - Cookies expire when you log out of the browser")
	fmt.Println(strings.Repeat("=", 72))
}

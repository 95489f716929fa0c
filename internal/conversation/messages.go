package conversation

import (
	"fmt"
	"time"
)

const (
	msgNotReady     = "அறிவுத் தளம் தயார் நிலையில் இல்லை."
	msgSearchFailed = "மன்னிக்கவும், தேடலில் பிழை ஏற்பட்டுள்ளது."
	msgNoInfo       = "மன்னிக்கவும், உங்கள் கேள்விக்கான தகவல் எனது ஆவணங்களில் கிடைக்கவில்லை."
	msgGoodbye      = "நன்றி! பின்னர் சந்திப்போம். நிறுத்த கட்டளையை அனுப்பவும்."
	msgNone         = "இல்லை"
)

// Greetings are the canned replies to a greeting.
var Greetings = []string{
	"வணக்கம்! நான் உங்கள் தமிழ் திட்ட உதவியாளர்.",
	"உங்கள் திட்டங்களைப் பற்றி கேளுங்கள்.",
	"நான் உங்கள் குறிப்புகளிலிருந்து பதிலளிப்பேன்.",
}

const helpText = `உதவி விருப்பங்கள்:

1. உங்கள் திட்டங்களைப் பற்றி கேளுங்கள்
   எ.கா: "வார இறுதி திட்டங்கள் என்ன?"

2. ஆவணங்களை சேர்க்க
   "ஆவணம் சேர்" என்று சொல்லவும்

3. புள்ளிவிவரங்களைப் பார்க்க
   "புள்ளிவிவரம்" என்று சொல்லவும்

4. நிறுத்த
   "%s" என்று சொல்லவும்

நான் உங்கள் தமிழ் ஆவணங்களிலிருந்து பதிலளிப்பேன்.`

func helpMessage(exitWord string) string {
	return fmt.Sprintf(helpText, exitWord)
}

func aboutMessage(docCount int, version string) string {
	return fmt.Sprintf(`நான் உங்கள் தமிழ் திட்ட உதவியாளர்.

• மொழி: தமிழ்
• ஆவணங்கள்: %d
• செயல்பாடு: உங்கள் திட்ட ஆவணங்களிலிருந்து பதிலளித்தல்
• பதிப்பு: %s

நீங்கள் சேமித்த திட்டங்கள் மற்றும் குறிப்புகளின் அடிப்படையில் நான் பதிலளிப்பேன்.`, docCount, version)
}

func statsMessage(docs, chunks int, lastUpdated *time.Time, historyLen int) string {
	updated := msgNone
	if lastUpdated != nil {
		updated = lastUpdated.Format("2006-01-02T15:04:05")
	}
	return fmt.Sprintf(`அறிவுத் தள புள்ளிவிவரங்கள்:

• ஆவணங்கள்: %d
• பகுதிகள்: %d
• கடைசி புதுப்பிப்பு: %s
• உரையாடல் வரலாறு: %d`, docs, chunks, updated, historyLen)
}

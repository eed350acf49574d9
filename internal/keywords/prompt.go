package keywords

import "maamar-search/internal/llm"

const systemPrompt = `אתה מחלץ מילות מפתח לחיפוש במאמרי חסידות.

הוראות:
1. החזר את כל השמות, המושגים, המקומות, החגים והמצוות שמופיעים בשאלה.
2. אל תכלול מילות עזר כמו: מה, מי, איך, למה, הרב, דעת, אומר, על, של, את, עם, לפי, היא, הוא, זה, זו.
3. אל תפרק צירופי מילים: "סיטרא אחרא" ו"בריאת העולם" הן מילת מפתח אחת כל אחת.
4. אל תמציא ראשי תיבות ואל תוסיף גרשיים. ראשי תיבות שהמשתמש כתב בעצמו (כמו סט"א) מוחזרים כפי שנכתבו.
5. החזר כל מילה בדיוק כפי שנכתבה בשאלה.
6. אם אין מילות מפתח, כתוב "אין".

דוגמאות:
- "מה דעת הרב על דוד ויהונתן" → דוד, יהונתן
- "מה הקשר בין שבת לבריאת העולם" → שבת, בריאת העולם
- "מה זה סיטרא אחרא אחת עשרה בחינות" → סיטרא אחרא, אחת עשרה, בחינות

השב רק ברשימה מופרדת בפסיקים.`

func prompt(question string) []llm.Message {
	return []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: question},
	}
}

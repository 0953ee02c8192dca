package bot

// Тексты бота. Пользователи бота — ивритоязычные, тексты взяты из
// продуктовых формулировок.
const (
	msgWelcome        = "ברוך הבא לבוט שלי 👋"
	msgChooseCities   = "בחר ערים שעליהן תרצה לקבל התראות:"
	msgSaveButton     = "✅ סיום"
	msgSaved          = "ההרשמה הושלמה! תקבל התראות עבור: "
	msgNoCitiesChosen = "יש לבחור לפחות עיר אחת"
	msgUnknownCity    = "עיר לא מוכרת"
	msgCancelled      = "הפעולה בוטלה"
	msgInternalError  = "שגיאה פנימית, נסה שוב מאוחר יותר"
)

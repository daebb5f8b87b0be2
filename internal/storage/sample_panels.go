// internal/storage/sample_panels.go
package storage

import "github.com/thiswayup/reillustrate/internal/models"

// 示例面板 ID
const (
	SampleNarratorIntro    = "insomnia_L1_P1_narrator_intro"
	SampleTherapyIntro     = "insomnia_L1_P2_therapy_intro"
	SampleBedDistress      = "insomnia_L1_P3_bed_distress"
	SampleCircadianDiagram = "insomnia_L1_P5_circadian_diagram"
	SampleBedroomDomestic  = "insomnia_L1_P2_bedroom_domestic"
)

// SamplePanels 返回失眠课程第一课的 5 个人工标注面板。
// 生产环境中这些数据由视觉语言模型分析生成。
func SamplePanels() []models.Panel {
	return []models.Panel{
		{
			PanelID:          SampleNarratorIntro,
			SourceFile:       "lesson1_page-01.png",
			PageNumber:       1,
			PanelPosition:    "top_left",
			Category:         models.CategoryNarratorSingle,
			SceneDescription: "Course narrator Rebecca welcomes user to the sleep program",
			Setting:          "neutral background with blue gradient",
			Lighting:         "soft, even studio lighting",
			Mood:             "warm, welcoming, professional",
			Characters: []models.Character{
				{
					Role: models.RoleNarrator, Name: "Rebecca", Gender: "female",
					ApproximateAge: "middle_aged", Emotion: models.EmotionPositive,
					ExpressionDescription: "friendly smile, open expression",
					PoseDescription:       "facing viewer, hand raised in welcoming gesture",
					ClothingDescription:   "pink blazer over white top",
					PositionInFrame:       "center", IsSpeaking: true,
				},
			},
			NarrativeStage:                  "introduction",
			TherapeuticSkill:                "psychoeducation",
			TherapeuticElements:             []models.TherapeuticElement{},
			SpeechBubbles:                   []string{"Welcome to the online Sleep program!"},
			TextOverlays:                    []string{},
			LockedElements:                  []string{"speech bubble content", "welcoming gesture"},
			AdaptableElements:               []string{"character demographics", "clothing colors"},
			RequiredEmotionPreservation:     true,
			RequiredCompositionPreservation: true,
		},
		{
			PanelID:          SampleTherapyIntro,
			SourceFile:       "lesson1_page-02.png",
			PageNumber:       2,
			PanelPosition:    "bottom_left",
			Category:         models.CategoryDialogueTherapy,
			SceneDescription: "Leo meets his psychologist Ian for the first time",
			Setting:          "therapy office with bookshelf, plant, wooden desk",
			Lighting:         "warm indoor lighting",
			Mood:             "professional, hopeful",
			Characters: []models.Character{
				{
					Role: models.RoleTherapist, Name: "Ian", Gender: "male",
					ApproximateAge: "older", Emotion: models.EmotionPositive,
					ExpressionDescription: "warm professional smile",
					PoseDescription:       "seated at desk, leaning slightly forward",
					ClothingDescription:   "light blue button-down shirt, glasses",
					PositionInFrame:       "right", IsSpeaking: true,
				},
				{
					Role: models.RoleClient, Name: "Leo", Gender: "male",
					ApproximateAge: "middle_aged", Emotion: models.EmotionNeutral,
					ExpressionDescription: "attentive, slightly uncertain",
					PoseDescription:       "seated across from therapist",
					ClothingDescription:   "casual collared shirt",
					PositionInFrame:       "left", IsSpeaking: false,
				},
			},
			NarrativeStage:                  "problem_introduction",
			TherapeuticSkill:                "psychoeducation",
			TherapeuticElements:             []models.TherapeuticElement{},
			SpeechBubbles:                   []string{"Great to meet you, Leo."},
			TextOverlays:                    []string{},
			LockedElements:                  []string{"therapy office setting", "therapeutic relationship dynamic"},
			AdaptableElements:               []string{"client demographics", "client clothing"},
			RequiredEmotionPreservation:     true,
			RequiredCompositionPreservation: true,
		},
		{
			PanelID:          SampleBedDistress,
			SourceFile:       "lesson1_page-03.png",
			PageNumber:       3,
			PanelPosition:    "top_right",
			Category:         models.CategoryClientSingle,
			SceneDescription: "Leo lying awake in bed at night, unable to sleep",
			Setting:          "bedroom at night, dark with bedside lamp glow",
			Lighting:         "dim nighttime, warm lamp light",
			Mood:             "frustrated, exhausted, anxious",
			Characters: []models.Character{
				{
					Role: models.RoleClient, Name: "Leo", Gender: "male",
					ApproximateAge: "middle_aged", Emotion: models.EmotionDistressed,
					ExpressionDescription: "tired eyes, furrowed brow, hand on forehead",
					PoseDescription:       "lying in bed, head on pillow",
					ClothingDescription:   "sleepwear/t-shirt",
					PositionInFrame:       "center", IsSpeaking: false,
				},
			},
			NarrativeStage:   "problem_introduction",
			TherapeuticSkill: "psychoeducation",
			TherapeuticElements: []models.TherapeuticElement{
				{
					ElementType:        "thought_bubble",
					ContentDescription: "Racing anxious thoughts about not sleeping",
					TherapeuticPurpose: "Illustrate cognitive component of insomnia",
					MustPreserve:       true,
				},
			},
			SpeechBubbles:                   []string{},
			TextOverlays:                    []string{"I would lie awake worrying..."},
			LockedElements:                  []string{"distressed expression", "bedroom setting", "lying pose"},
			AdaptableElements:               []string{"character demographics", "bedroom decor"},
			RequiredEmotionPreservation:     true,
			RequiredCompositionPreservation: true,
		},
		{
			PanelID:          SampleCircadianDiagram,
			SourceFile:       "lesson1_page-05.png",
			PageNumber:       5,
			PanelPosition:    "top_left",
			Category:         models.CategoryConceptualDiagram,
			SceneDescription: "Ian explaining circadian rhythm with clock diagram",
			Setting:          "therapy office",
			Lighting:         "indoor lighting",
			Mood:             "educational",
			Characters: []models.Character{
				{
					Role: models.RoleTherapist, Name: "Ian", Gender: "male",
					ApproximateAge: "older", Emotion: models.EmotionNeutral,
					ExpressionDescription: "explaining, educational",
					PoseDescription:       "gesturing toward diagram",
					ClothingDescription:   "light blue shirt, glasses",
					PositionInFrame:       "right", IsSpeaking: true,
				},
			},
			NarrativeStage:   "psychoeducation",
			TherapeuticSkill: "psychoeducation",
			TherapeuticElements: []models.TherapeuticElement{
				{
					ElementType:        "diagram",
					ContentDescription: "Circadian Rhythm clock showing 24-hour cycle",
					TherapeuticPurpose: "Visual explanation of sleep regulation",
					MustPreserve:       true,
				},
			},
			SpeechBubbles:                   []string{"The second process is your Circadian Rhythm."},
			TextOverlays:                    []string{"Circadian Rhythm"},
			LockedElements:                  []string{"circadian rhythm diagram", "educational content"},
			AdaptableElements:               []string{"therapist demographics"},
			RequiredEmotionPreservation:     true,
			RequiredCompositionPreservation: true,
			RequiresClinicalReview:          true,
		},
		{
			PanelID:          SampleBedroomDomestic,
			SourceFile:       "lesson1_page-02.png",
			PageNumber:       2,
			PanelPosition:    "middle",
			Category:         models.CategoryDialogueDomestic,
			SceneDescription: "Leo and Ali in bedroom discussing sleep problems",
			Setting:          "bedroom, morning or evening",
			Lighting:         "warm indoor domestic lighting",
			Mood:             "concerned, supportive",
			Characters: []models.Character{
				{
					Role: models.RoleClient, Name: "Leo", Gender: "male",
					ApproximateAge: "middle_aged", Emotion: models.EmotionStruggling,
					ExpressionDescription: "tired, frustrated",
					PoseDescription:       "sitting on edge of bed",
					ClothingDescription:   "striped pajamas",
					PositionInFrame:       "left", IsSpeaking: true,
				},
				{
					Role: models.RolePartner, Name: "Ali", Gender: "female",
					ApproximateAge: "middle_aged", Emotion: models.EmotionNeutral,
					ExpressionDescription: "concerned, listening",
					PoseDescription:       "sitting beside partner",
					ClothingDescription:   "casual sleepwear",
					PositionInFrame:       "right", IsSpeaking: false,
				},
			},
			NarrativeStage:                  "problem_introduction",
			TherapeuticSkill:                "psychoeducation",
			TherapeuticElements:             []models.TherapeuticElement{},
			SpeechBubbles:                   []string{"Another awful sleep - It's like I've lost my ability to sleep."},
			TextOverlays:                    []string{},
			LockedElements:                  []string{"domestic supportive dynamic", "bedroom setting"},
			AdaptableElements:               []string{"both character demographics", "bedroom decor"},
			RequiredEmotionPreservation:     true,
			RequiredCompositionPreservation: true,
		},
	}
}

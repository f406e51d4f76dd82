package influencer

import (
	"fmt"
	"strings"

	"brand-card-studio/internal/domain/entity"
)

// candidate 候选网红模板
type candidate struct {
	Name   string
	Domain string
	Bio    string
}

var candidatePool = []candidate{
	{"Maya Chen", "fitness", "Former collegiate runner who now coaches busy professionals through short daily workouts."},
	{"Leo Alvarez", "outdoor", "Weekend climber and trail photographer who tests gear on long mountain routes."},
	{"Priya Nair", "wellness", "Yoga teacher focused on posture, breathing and recovery for desk workers."},
	{"Jonas Becker", "tech", "Hardware reviewer who cares about build quality more than spec sheets."},
	{"Amara Okafor", "home", "Small-apartment designer sharing practical storage and lighting ideas."},
	{"Sofia Rossi", "food", "Home cook turning seasonal market finds into quick weeknight meals."},
	{"Kenji Watanabe", "travel", "Carry-on-only traveler documenting city walks and train journeys."},
	{"Hannah Lee", "parenting", "Parent of twins testing products that survive real family routines."},
	{"Marcus Reid", "productivity", "Remote team lead obsessed with calm desks and focused mornings."},
	{"Elena Petrova", "beauty", "Skincare enthusiast who explains ingredients in plain language."},
	{"Tariq Hassan", "cycling", "Daily bike commuter reviewing gear through rain, heat and traffic."},
	{"Chloe Martin", "pets", "Dog trainer sharing routines for active pets in busy cities."},
	{"Diego Santos", "music", "Bedroom producer and session guitarist who records on the go."},
	{"Nora Lindqvist", "sustainability", "Zero-waste advocate who favors products built to be repaired."},
	{"Samir Patel", "gaming", "Competitive gamer focused on ergonomics and long-session comfort."},
	{"Grace Kim", "fashion", "Capsule-wardrobe stylist who tests how pieces hold up over seasons."},
}

var actionPoses = []string{
	"actively using the product in a natural everyday setting, candid mid-motion shot",
	"smiling at the camera while showing the product to a friend, relaxed lifestyle shot",
}

// fromPool 以候选模板为底，用草稿中已填写的字段覆盖
func fromPool(draft Draft, pick func(n int) int) Draft {
	c := candidatePool[pick(len(candidatePool))]
	out := Draft{Name: c.Name, Domain: c.Domain, Bio: c.Bio}
	if s := strings.TrimSpace(draft.Name); s != "" {
		out.Name = s
	}
	if s := strings.TrimSpace(draft.Domain); s != "" {
		out.Domain = s
	}
	if s := strings.TrimSpace(draft.Bio); s != "" {
		out.Bio = s
	}
	return out
}

// uniqueName 在已有名称中（忽略大小写）为 base 追加 " 2"、" 3" 等后缀直到不冲突
func uniqueName(base string, taken map[string]struct{}) string {
	if _, ok := taken[strings.ToLower(base)]; !ok {
		return base
	}
	for n := 2; ; n++ {
		name := fmt.Sprintf("%s %d", base, n)
		if _, ok := taken[strings.ToLower(name)]; !ok {
			return name
		}
	}
}

func headshotPrompt(inf *entity.Influencer) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Professional portrait headshot photo of %s", inf.Name)
	if inf.Domain != "" {
		fmt.Fprintf(&b, ", a %s content creator", inf.Domain)
	}
	if inf.Bio != "" {
		fmt.Fprintf(&b, ". %s", inf.Bio)
	}
	b.WriteString(". Natural lighting, neutral background, photorealistic, shoulders up.")
	return b.String()
}

func actionPrompt(inf *entity.Influencer, pose string) string {
	return fmt.Sprintf("The same person from the reference photo, %s, %s. Keep the face and hair identical, photorealistic.", inf.Name, pose)
}

package quiz

// DefaultPrompts seeds a family's question pool on first use.
// Order matters: the unattended sweep rotates deterministically over it.
var DefaultPrompts = []string{
	"오늘 가장 기분 좋았던 순간은?",
	"오늘 고마웠던 일 한 가지는?",
	"오늘 힘들었던 일 한 가지는?",
	"지금 듣고 싶은 말이 있나요?",
	"오늘 먹은 것 중에 가장 맛있었던 건?",
	"요즘 빠져 있는 노래/드라마/게임은?",
	"내일 가장 기대되는 일은?",
	"이번 주에 꼭 하고 싶은 일은?",
	"요즘 걱정되는 일이 있나요?",
	"오늘 웃었던 순간을 공유해줘요.",
	"오늘 배운 것 한 가지는?",
	"최근에 읽은/본 콘텐츠는?",
	"지금 가장 필요한 건 뭐예요?",
	"오늘 나에게 점수를 준다면 몇 점?",
	"최근에 감사한 사람은 누구인가요?",
	"잠들기 전에 생각나는 건?",
	"오늘 산책이나 움직임을 했나요?",
	"오늘 날씨를 한 단어로 표현해줘요.",
	"한 줄로 오늘을 적어본다면?",
	"이번 달 목표 중 진행 중인 건?",
}
